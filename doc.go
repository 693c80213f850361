// Package driftdetect compares two tabular snapshots of the same schema: a
// prior snapshot and a post snapshot (for example, a real dataset and a
// synthetic rendition, or last month's extract and this month's).
//
// Two independent analyses are offered. ComputeDrift quantifies per-column
// distributional divergence with the Jensen–Shannon distance. CompareEfficacy
// trains one tree ensemble per snapshot under an identical hyperparameter
// search budget and scores both against a shared held-out test set, so the
// metric gap isolates the effect of the data change.
//
// Both operations are pure functions of the detector's two normalized
// snapshots and the call's configuration; results are immutable values and a
// Detector is safe for concurrent reads.
package driftdetect
