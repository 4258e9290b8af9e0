package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/pas/compiler/front"
)

func TestCompileFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "a.pas")

	err := os.WriteFile(name, []byte("program a;\nbegin\n  writeln(1)\nend.\n"), 0o644)
	require.NoError(t, err)

	p, err := CompileFile(context.Background(), name, Options{})
	require.NoError(t, err)

	assert.Equal(t, "a", p.Name)
	assert.NotEmpty(t, p.Code)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile(context.Background(), "b.pas", []byte("program b;\nbegin\n  x := 1\nend."), Options{})
	require.Error(t, err)

	errs, ok := front.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, 3, errs[0].Line)
}

func TestCompileMissingFile(t *testing.T) {
	_, err := CompileFile(context.Background(), filepath.Join(t.TempDir(), "none.pas"), Options{})
	assert.Error(t, err)
}
