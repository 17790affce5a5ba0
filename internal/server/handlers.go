package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleared-dev/envelope/internal/autoassign"
	"github.com/cleared-dev/envelope/internal/budget"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/ordering"
	"github.com/cleared-dev/envelope/internal/reconcile"
)

func (s *Server) listAccounts(c *gin.Context) {
	snap, err := s.svc.Snapshot(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	accounts := snap.Accounts
	if accounts == nil {
		accounts = []model.Account{}
	}
	c.JSON(http.StatusOK, accounts)
}

type createAccountRequest struct {
	Name string            `json:"name"`
	Type model.AccountType `json:"type"`
}

func (s *Server) createAccount(c *gin.Context) {
	var req createAccountRequest
	if !s.bind(c, &req) {
		return
	}
	a, err := s.svc.AddAccount(c.Request.Context(), req.Name, req.Type)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) reconcileInfo(c *gin.Context) {
	info, err := s.svc.ReconcileInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// commitReconciliation answers 200 for both success and mismatch: a mismatch
// is a result the client renders, not a failure.
func (s *Server) commitReconciliation(c *gin.Context) {
	var req reconcile.CommitRequest
	if !s.bind(c, &req) {
		return
	}
	if req.AccountID == "" {
		s.fail(c, model.ValidationError{Field: "accountId", Message: "required"})
		return
	}
	resp, err := s.svc.CommitReconciliation(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getMonth(c *gin.Context) {
	m, ok := s.monthParam(c)
	if !ok {
		return
	}
	view, err := s.svc.Month(c.Request.Context(), m)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) getRTA(c *gin.Context) {
	m, ok := s.monthParam(c)
	if !ok {
		return
	}
	b, err := s.svc.ReadyToAssign(c.Request.Context(), m)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"breakdown": b, "overAssigned": b.OverAssigned()})
}

type assignRequest struct {
	Assigned money.Money `json:"assigned"`
}

func (s *Server) assign(c *gin.Context) {
	m, ok := s.monthParam(c)
	if !ok {
		return
	}
	var req assignRequest
	if !s.bind(c, &req) {
		return
	}
	item, err := s.svc.Assign(c.Request.Context(), c.Param("id"), m, req.Assigned)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type autoAssignRequest struct {
	Strategy    string   `json:"strategy"`
	Window      int      `json:"window"`
	CategoryIDs []string `json:"categoryIds"`
	Apply       bool     `json:"apply"`
}

func (s *Server) autoAssign(c *gin.Context) {
	m, ok := s.monthParam(c)
	if !ok {
		return
	}
	var req autoAssignRequest
	if !s.bind(c, &req) {
		return
	}
	strategy, err := autoassign.ParseStrategy(req.Strategy)
	if err != nil {
		s.fail(c, err)
		return
	}
	opts := autoassign.Options{Window: req.Window, CategoryIDs: req.CategoryIDs}
	run := s.svc.ProposeAutoAssign
	if req.Apply {
		run = s.svc.ApplyAutoAssign
	}
	proposals, err := run(c.Request.Context(), m, strategy, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	if proposals == nil {
		proposals = []autoassign.Proposal{}
	}
	c.JSON(http.StatusOK, gin.H{"strategy": strategy, "applied": req.Apply, "proposals": proposals})
}

type adjustmentRequest struct {
	Amount money.Money `json:"amount"`
	Memo   string      `json:"memo"`
}

func (s *Server) addAdjustment(c *gin.Context) {
	m, ok := s.monthParam(c)
	if !ok {
		return
	}
	var req adjustmentRequest
	if !s.bind(c, &req) {
		return
	}
	a, err := s.svc.AddAdjustment(c.Request.Context(), m, req.Amount, req.Memo)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

type createTransactionRequest struct {
	AccountID  string              `json:"accountId"`
	Date       string              `json:"date"`
	Payee      string              `json:"payee"`
	Memo       string              `json:"memo"`
	CategoryID string              `json:"categoryId"`
	Amount     money.Money         `json:"amount"`
	Cleared    model.ClearedStatus `json:"clearedStatus"`
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, model.ValidationError{Field: "date", Message: err.Error()}
	}
	return d, nil
}

func (s *Server) createTransaction(c *gin.Context) {
	var req createTransactionRequest
	if !s.bind(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		s.fail(c, err)
		return
	}
	t, err := s.svc.AddTransaction(c.Request.Context(), budget.NewTransaction{
		AccountID:  req.AccountID,
		Date:       date,
		Payee:      req.Payee,
		Memo:       req.Memo,
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Cleared:    req.Cleared,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// updateTransactionRequest carries only the fields to change.
type updateTransactionRequest struct {
	Date       *string              `json:"date"`
	Payee      *string              `json:"payee"`
	Memo       *string              `json:"memo"`
	CategoryID *string              `json:"categoryId"`
	Inflow     *money.Money         `json:"inflow"`
	Outflow    *money.Money         `json:"outflow"`
	Cleared    *model.ClearedStatus `json:"clearedStatus"`
	Deleted    *bool                `json:"deleted"`
}

func (s *Server) updateTransaction(c *gin.Context) {
	var req updateTransactionRequest
	if !s.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	snap, err := s.svc.Snapshot(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	t, ok := snap.Transaction(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	if req.Date != nil {
		if t.Date, err = parseDate(*req.Date); err != nil {
			s.fail(c, err)
			return
		}
	}
	if req.Payee != nil {
		t.Payee = *req.Payee
	}
	if req.Memo != nil {
		t.Memo = *req.Memo
	}
	if req.CategoryID != nil {
		t.CategoryID = *req.CategoryID
	}
	if req.Inflow != nil {
		t.Inflow = *req.Inflow
	}
	if req.Outflow != nil {
		t.Outflow = *req.Outflow
	}
	if req.Cleared != nil {
		t.Cleared = *req.Cleared
	}
	if req.Deleted != nil {
		t.Deleted = *req.Deleted
	}
	updated, err := s.svc.UpdateTransaction(ctx, t)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type createGroupRequest struct {
	Name string `json:"name"`
}

func (s *Server) createGroup(c *gin.Context) {
	var req createGroupRequest
	if !s.bind(c, &req) {
		return
	}
	g, err := s.svc.AddGroup(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

type createCategoryRequest struct {
	GroupID string      `json:"categoryGroupId"`
	Name    string      `json:"name"`
	Target  money.Money `json:"target"`
}

func (s *Server) createCategory(c *gin.Context) {
	var req createCategoryRequest
	if !s.bind(c, &req) {
		return
	}
	cat, err := s.svc.AddCategory(c.Request.Context(), req.GroupID, req.Name, req.Target)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

type moveRequest struct {
	GroupID string `json:"groupId"`
	ToIndex int    `json:"toIndex"`
}

func (s *Server) moveGroup(c *gin.Context) {
	var req moveRequest
	if !s.bind(c, &req) {
		return
	}
	b, err := s.svc.MoveGroup(c.Request.Context(), c.Param("id"), req.ToIndex)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) moveCategory(c *gin.Context) {
	var req moveRequest
	if !s.bind(c, &req) {
		return
	}
	if req.GroupID == "" {
		s.fail(c, model.ValidationError{Field: "groupId", Message: "required"})
		return
	}
	b, err := s.svc.MoveCategory(c.Request.Context(), c.Param("id"), req.GroupID, req.ToIndex)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) reorder(c *gin.Context) {
	var req ordering.Batch
	if !s.bind(c, &req) {
		return
	}
	if req.Scope != ordering.ScopeGroup && req.Scope != ordering.ScopeCategory {
		s.fail(c, model.ValidationError{Field: "scope", Message: "must be group or category"})
		return
	}
	b, err := s.svc.Reorder(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
