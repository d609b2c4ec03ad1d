//go:build !linux

package platform

func unameMachine() string {
	return ""
}
