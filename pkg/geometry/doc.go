// Package geometry provides the triangle-mesh substrate the solvers
// operate over: meshes with indexed faces, tight axis-aligned bounds,
// matrix transforms, and exact mesh/mesh intersection tests.
//
// Coordinates are sdfx v3.Vec values throughout; transforms are sdfx
// 4x4 matrices. Meshes are value types: functions that change geometry
// return a new mesh rather than mutating a shared one.
package geometry
