//go:build docker

package cli

// Container images upgrade by pulling a new tag, not by patching the
// binary in place.
func setupSelfUpgrade() {}
