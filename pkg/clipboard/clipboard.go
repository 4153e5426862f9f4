// Package clipboard is the daemon-facing wrapper around pkg/wlclipboard:
// it turns a capture stream into CaptureEvents the coordinator can consume,
// and turns a re-publish request into a forked, detached clipboard owner
// the coordinator only has to wait on briefly.
package clipboard

// Stage argv markers the daemon's own binary recognizes on re-exec. They
// are not part of any public command surface — the daemon takes no
// arguments in normal operation — they only ever appear on the argv of a
// process this package itself spawns.
const (
	StageSetup = "__clipboard-publish-setup"
	StageServe = "__clipboard-publish-serve"
)
