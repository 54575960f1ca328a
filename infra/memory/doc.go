// Package memory provides the typed object pool the order book draws
// resting orders from, so steady-state matching does not churn the GC.
package memory
