// Package pacing produces the pauses used to make browser input look human:
// a jittered delay between keystrokes and a longer one between form fields.
package pacing
