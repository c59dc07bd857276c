// Package threedstest provides in-memory doubles for the collaborators of a
// goThreeDS session: a scripted gateway transport, a challenge SDK that
// records calls and emits events on demand, a counting script loader and
// recorders for the legacy frame hooks and the modal and inline presenters.
//
// The doubles are safe for concurrent use.
package threedstest
