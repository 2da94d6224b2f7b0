// hal/platform/board_other.go
//go:build !linux && !(rp2040 || rp2350)

package platform

// Default falls back to the simulated board on hosts without a supported
// hardware backend.
func Default() (*Board, error) {
	b, _ := Simulated()
	return b, nil
}
