package output

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a status message
	w.Status("📦", "Fetching template...")

	// Then: output contains icon and message
	assert.Equal(t, "📦 Fetching template...\n", buf.String())
}

func TestWriter_Status_IndentsWithoutIcon(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Status("", "detail")
	assert.Equal(t, "   detail\n", buf.String())
}

func TestWriter_Levels(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Successf("Registered %s", "go-service")
	w.Warningf("%d templates", 0)
	w.Error("Failed")

	out := buf.String()
	assert.Contains(t, out, "✅ Registered go-service")
	assert.Contains(t, out, "⚠️  0 templates")
	assert.Contains(t, out, "❌ Failed")
}

func TestWriter_Code_Indents(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Code("a: 1\nb: 2\n")
	assert.Equal(t, "\n  a: 1\n  b: 2\n\n", buf.String())
}

func TestNew_BufferIsNotTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, New(&bytes.Buffer{}).useColor)
}

func TestIsTTY_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.False(t, IsTTY(f))
}

func TestNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, NoColor())
}

func TestWriter_Templates_Plain(t *testing.T) {
	// Given: a plain writer and two templates, the first default
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, false)

	// When: listing
	w.Templates([]TemplateRow{
		{Position: 1, Name: "go-service", Location: "local:/tpl/go", TargetDir: ".", Default: true},
		{Position: 2, Name: "web", Location: "github:acme/t:web", TargetDir: "site"},
	})

	// Then: rows are aligned and the default is marked
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "    #  NAME        LOCATION", lines[0])
	assert.Equal(t, "*   1  go-service  local:/tpl/go", lines[1])
	assert.Equal(t, "    2  web         github:acme/t:web → site", lines[2])
}

func TestWriter_Templates_ColorKeepsText(t *testing.T) {
	buf := &bytes.Buffer{}
	NewWithColor(buf, true).Templates([]TemplateRow{{Position: 1, Name: "go-service", Location: "local:/x", Default: true}})
	assert.Contains(t, buf.String(), "go-service")
	assert.Contains(t, buf.String(), "local:/x")
}
