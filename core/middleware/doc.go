// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation (X-API-Key header or api_key query parameter).
//   - rayid: a unique request id (RayID) per request, stored in the fiber
//     locals for logger.WithRayID and echoed in the X-Ray-ID response header.
//
// Register rayid first so every later log line carries the id.
package middleware
