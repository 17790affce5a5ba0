package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/money"
)

const chaseHeader = "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n"

const chaseCSV = chaseHeader +
	"DEBIT,01/03/2025,GITHUB *PRO SUBSCRIPTION,-4.00,ACH_DEBIT,5996.00,\n" +
	"DEBIT,01/08/2025,CITY WATER,-61.25,BILLPAY,5934.75,\n" +
	"CREDIT,01/15/2025,ACME PAYROLL,3500.00,ACH_CREDIT,9434.75,\n" +
	"CHECK,01/22/2025,CHECK 1042,-120.00,CHECK_PAID,9314.75,1042\n"

func TestChaseParser_Parse(t *testing.T) {
	rows, err := (&ChaseParser{}).Parse(strings.NewReader(chaseCSV))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "GITHUB *PRO SUBSCRIPTION", rows[0].Payee)
	assert.Equal(t, money.Money(-4000), rows[0].Amount)
	assert.Equal(t, "ACH_DEBIT", rows[0].Memo)
	assert.Equal(t, "2025-01-03", rows[0].Date.Format("2006-01-02"))

	assert.Equal(t, money.Money(3_500_000), rows[2].Amount)
	assert.Equal(t, "CHECK_PAID #1042", rows[3].Memo)
}

func TestChaseParser_EmptyFile(t *testing.T) {
	rows, err := (&ChaseParser{}).Parse(strings.NewReader(chaseHeader))
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestChaseParser_BadRows(t *testing.T) {
	_, err := (&ChaseParser{}).Parse(strings.NewReader(chaseHeader + "DEBIT,NOTADATE,desc,-4.00,ACH_DEBIT,100.00,\n"))
	assert.ErrorContains(t, err, "parsing date")

	_, err = (&ChaseParser{}).Parse(strings.NewReader(chaseHeader + "DEBIT,01/03/2025,desc,NOTANUMBER,ACH_DEBIT,100.00,\n"))
	assert.ErrorContains(t, err, "parsing amount")
}

func TestSimpleParser_Parse(t *testing.T) {
	in := "amount, date, payee\n-12.5,2025-02-01,Bakery\n1000,2025-02-03,Employer\n"
	rows, err := (&SimpleParser{}).Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bakery", rows[0].Payee)
	assert.Equal(t, money.Money(-12_500), rows[0].Amount)
	assert.Empty(t, rows[0].Memo)
	assert.Equal(t, money.Money(1_000_000), rows[1].Amount)
}

func TestSimpleParser_Errors(t *testing.T) {
	_, err := (&SimpleParser{}).Parse(strings.NewReader("date,amount\n2025-02-01,1\n"))
	assert.ErrorContains(t, err, `missing "payee" column`)

	_, err = (&SimpleParser{}).Parse(strings.NewReader("date,payee,amount\n02/01/2025,x,1\n"))
	assert.ErrorContains(t, err, "row 2")

	rows, err := (&SimpleParser{}).Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))

	r.Register(&ChaseParser{})
	assert.NotNil(t, r.Get("Chase"))
	assert.Panics(t, func() { r.Register(&ChaseParser{}) })

	assert.ElementsMatch(t, []string{"chase", "simple"}, DefaultRegistry().Formats())
}

func TestRegistry_ParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jan.csv")
	require.NoError(t, os.WriteFile(path, []byte(chaseCSV), 0o644))

	rows, err := DefaultRegistry().ParseFile(path, "chase")
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	_, err = DefaultRegistry().ParseFile(path, "ofx")
	assert.ErrorContains(t, err, "unknown import format")
}

func TestScan_FindsCSVs(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(filepath.Join(importDir, "processed"), 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(importDir, "bank.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "other.txt"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "processed", "old.csv"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "bank.csv", files[0].Name)
}

func TestScan_EmptyDir(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "bank.csv"), []byte("data"), 0o644))

	require.NoError(t, MarkProcessed(dir, "bank.csv"))

	_, err := os.Stat(filepath.Join(importDir, "bank.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "bank.csv"))
	assert.NoError(t, err)
}
