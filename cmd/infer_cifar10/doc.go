// Package main provides a program for evaluating a checkpoint of the CIFAR-10
// classifier on the test batch of the dataset.
package main
