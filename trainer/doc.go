// Package trainer provides high-level training orchestration for Neurlang networks.
// It runs the epoch loop of a resumable training: resume from the latest
// checkpoint, train one epoch at a time over a data source and persist the
// latest and the best state after every epoch.
package trainer
