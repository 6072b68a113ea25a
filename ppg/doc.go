// Package ppg turns semi-planar YUV 4:2:0 camera frames of a flash-lit
// fingertip into one photoplethysmographic sample per frame.
//
// Pixels are converted with the fixed-point BT.601 transform used by Android
// camera pipelines and aggregated on the fly; no RGB image is materialised.
// All functions are pure and safe for concurrent use.
package ppg
