// Package main provides a program for training a small convolutional image
// classifier on the CIFAR-10 dataset. Training can be interrupted at any time:
// the next run resumes from the last completed epoch stored in the checkpoint
// directory.
package main
