// Package service is one of two test packages that share a package name and
// type names, used to check that type identities include the import path.
package service

// S answers with the name of its package.
type S struct{}

func (*S) Get() string { return "alpha" }

// Point has the same shape as its counterpart in the beta package.
type Point struct {
	X, Y int
}
