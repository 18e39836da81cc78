package ui

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestPrinter(t *testing.T) {
	tests := []struct {
		name  string
		print func(p *Printer)
		want  string
	}{
		{"activity", func(p *Printer) { p.Activity("Creating S3 bucket %q", "results") }, "► Creating S3 bucket \"results\"\n"},
		{"success", func(p *Printer) { p.Success("Setup completed successfully") }, "✔ Setup completed successfully\n"},
		{"warn", func(p *Printer) { p.Warn("%s", "Delete the IAM role from AWS then try again") }, "⚠ Delete the IAM role from AWS then try again\n"},
		{"error", func(p *Printer) { p.Error("Setup did not complete successfully") }, "✗ Setup did not complete successfully\n"},
		{"multi-line", func(p *Printer) { p.Warn("Created:\n%s\n%s", "AWS S3 Bucket a", "AWS IAM User b") }, "⚠ Created:\n  AWS S3 Bucket a\n  AWS IAM User b\n"},
		{"percent in argument", func(p *Printer) { p.Activity("%s", "100% done") }, "► 100% done\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.print(NewPrinter(&buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestBox(t *testing.T) {
	out := Box("Saved Credentials",
		Field{Label: "Snowflake account", Value: "xy12345"},
		Field{Label: "Snowflake username", Value: ""},
	)

	assert.Contains(t, out, "Saved Credentials")
	assert.Contains(t, out, "Snowflake account: xy12345")
	assert.Contains(t, out, "Snowflake username: NOT SET")
}

func TestStatus(t *testing.T) {
	assert.Contains(t, Status(nil), "SUCCESS")
	assert.Contains(t, Status(errors.New("denied")), "FAILURE")
}

func TestMapAbort(t *testing.T) {
	assert.NoError(t, mapAbort(nil))

	err := mapAbort(huh.ErrUserAborted)
	require.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, huh.ErrUserAborted)

	other := errors.New("tty closed")
	assert.Equal(t, other, mapAbort(other))
}

func TestRequired(t *testing.T) {
	assert.ErrorIs(t, required("  "), errInputRequired)
	assert.NoError(t, required("value"))
}

func TestSelect_NoOptions(t *testing.T) {
	_, err := NewPrompter(context.Background(), true).Select("Pick one")
	assert.Error(t, err)
}
