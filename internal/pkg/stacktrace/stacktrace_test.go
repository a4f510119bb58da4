package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	t.Parallel()

	stack := []byte(`goroutine 1 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/portalauth/internal/identity/usecase.(*Usecase).Login(...)
	/src/portalauth/internal/identity/usecase/login.go:42 +0x1a
main.main()
	/src/portalauth/main.go:10 +0x1d
`)

	assert.Equal(t, []string{"internal/identity/usecase/login.go:42"}, InternalPaths(stack))
	assert.Empty(t, InternalPaths(nil))
}
