// Package dedupe provides a time-windowed key set so that a condition seen on
// every sync pass is logged once per window rather than on each pass.
package dedupe
