// Package advisory implements the scoring core of the system: yield
// estimation, price forecasting, and the store-vs-sell recommendation.
//
// Everything here is a pure function over its arguments plus an injected
// CropProfile; no I/O, no package-level state. The functions are safe for
// any number of concurrent callers. The surrounding modules resolve profiles
// from the catalog, fetch observations, and persist the outputs.
package advisory
