// Package features turns a point cloud into the fixed-length geometric
// descriptor used for key enrollment and verification.
//
// The vector is the concatenation of four blocks:
//
//	geometric     centroid (3), bbox extents (3), bbox centre (3), covariance diagonal (3)
//	distribution  distance-from-centroid histogram, azimuth histogram
//	surface       mean local normal (3), normal variance (1)
//	statistical   per-axis mean (3), per-axis variance (3), point density (1)
//
// followed by a min–max normalisation of the whole vector into [0,1].
// Extraction is deterministic and side-effect free.
//
// Dependency rule: depends only on pointcloud. No session state lives here.
package features
