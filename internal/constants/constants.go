// Package constants provides named constants used throughout the dbnn codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Time grid defaults for a single perceptron integration.
const (
	// DefaultTStart is the start of the default integration interval.
	DefaultTStart = 0.0

	// DefaultTEnd is the end of the default integration interval.
	DefaultTEnd = 10.0

	// DefaultSamples is the number of evenly spaced output times generated
	// when the caller does not supply explicit evaluation points.
	DefaultSamples = 100
)

// Adaptive integrator tolerances. These match the classic RK45 defaults
// (relative 1e-3, absolute 1e-6).
const (
	// DefaultRelTol is the relative local error tolerance.
	DefaultRelTol = 1e-3

	// DefaultAbsTol is the absolute local error tolerance.
	DefaultAbsTol = 1e-6

	// DefaultMaxSteps bounds the number of accepted plus rejected steps of one
	// integration so a pathological system fails instead of hanging.
	DefaultMaxSteps = 100000
)

// Step size controller parameters for the Dormand-Prince integrator.
const (
	// StepSafety scales the optimal step estimate down to leave margin.
	StepSafety = 0.9

	// MinStepFactor is the largest allowed shrink per step.
	MinStepFactor = 0.2

	// MaxStepFactor is the largest allowed growth per step.
	MaxStepFactor = 10.0
)

// Activation and stability defaults.
const (
	// DefaultThreshold is the decision boundary of a perceptron when none is given.
	DefaultThreshold = 0.0

	// SettleWindow is the number of trailing samples inspected when checking
	// that a trajectory has reached steady state.
	SettleWindow = 10

	// SettleEpsilon is the maximum standard deviation of each species over
	// SettleWindow samples for a trajectory to count as settled.
	SettleEpsilon = 0.01
)

// CarrierWidth is the number of initial concentrations a layer consumes.
const CarrierWidth = 2

// Network evaluation defaults.
const (
	// DefaultWorkers is the number of perceptrons of one layer evaluated
	// concurrently. 1 evaluates sequentially.
	DefaultWorkers = 1

	// DefaultCacheSize disables decision memoization.
	DefaultCacheSize = 0
)
