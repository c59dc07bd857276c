// Package bootstrap runs the challenge SDK setup sequence once per session
// and fans its outcome out to every waiter.
package bootstrap
