// Package services implements the driving port interfaces.
// Services hold the credential lifecycle, generation and dispatch logic
// and reach the outside world only through driven ports.
//
// Services are pure Go with no network or storage code of their own.
package services
