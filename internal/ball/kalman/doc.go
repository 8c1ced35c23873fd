// Package kalman owns motion estimation for a single ball phase.
//
// Responsibilities: a linear Kalman filter parameterised by state
// dimension and noise levels (constant velocity, 4 states, or constant
// acceleration, 6 states), and the Estimator lifecycle that seeds it from
// the first two detections, coasts through misses, and declares the
// phase lost after a bounded run of them.
// Key types: Model, Filter, Estimator.
//
// Time is measured in frames and all quantities are in pixels.
package kalman
