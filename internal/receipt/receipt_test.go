package receipt

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.now = func() time.Time { return time.Date(2026, 3, 1, 14, 30, 5, 0, time.UTC) }

	name, err := w.Write("withdraw_receipt", []string{"Cashpoint ATM", "Amount: 100"})
	require.NoError(t, err)
	assert.Equal(t, "withdraw_receipt_20260301_143005.txt", name)

	content, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "Cashpoint ATM\nAmount: 100\n", string(content))
}

func TestWrite_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "receipts")
	w := NewWriter(dir)

	_, err := w.Write("balance_receipt", []string{"line"})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
