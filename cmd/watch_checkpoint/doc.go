// Package main provides a program that follows the checkpoints of a running
// training and prints every new latest and best state.
package main
