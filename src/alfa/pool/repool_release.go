//go:build !debug

package pool

import "github.com/morfoh/xdelta3/src/_/interfaces"

func wrapRepoolDebug(repool interfaces.FuncRepool) interfaces.FuncRepool {
	return repool
}
