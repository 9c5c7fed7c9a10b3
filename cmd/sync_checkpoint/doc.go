// Package main provides a program that copies the latest and best checkpoints
// of a run from one checkpoint directory to another, for example between a
// local disk and mounted object storage.
package main
