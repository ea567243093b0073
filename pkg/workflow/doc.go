// Package workflow dispatches operator operations against one binding target.
//
// Each Operation is either a single provider call or, for bind, a convergence
// run driven by engine.Converger. The Dispatcher asks for confirmation before
// mutating operations, runs the interactive menu session and checks the
// profile against both authorities in Preflight.
package workflow
