// Package overlay owns the in-page annotation layer injected into proxied
// pages and the typed message protocol it speaks with the parent frame.
//
// Several overlays (one per simulated breakpoint) share a parent, so every
// message carries a breakpoint and an overlay drops anything addressed to
// another one. Positions crossing the boundary are document percentages;
// markers are laid out against the document size current at render time.
package overlay
