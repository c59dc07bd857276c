// Package future provides a settle-once value shared by many awaiters.
//
// It backs the pending-challenge handle of a verification attempt and the
// device fingerprint broadcast of the modern strategy. Ordinary one-shot calls
// stay plain blocking functions; Future exists only where a value is produced
// by one party and observed by an unknown number of others.
package future
