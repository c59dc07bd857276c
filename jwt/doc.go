// Package jwt mints the setup token handed to the external challenge SDK and
// verifies the signed validation token the SDK returns after a challenge.
package jwt
