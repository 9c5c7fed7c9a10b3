//go:build !cuda

package device

func probeCUDA() (string, int64) {
	return "", 0
}
