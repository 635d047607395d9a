//go:build sanity

package sanity

// Enabled reports whether expensive self-checks are compiled in.
const Enabled = true
