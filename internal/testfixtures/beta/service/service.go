// Package service mirrors the alpha fixture package under another import path.
package service

// S answers with the name of its package.
type S struct{}

func (*S) Get() string { return "beta" }

// Point has the same shape as its counterpart in the alpha package.
type Point struct {
	X, Y int
}
