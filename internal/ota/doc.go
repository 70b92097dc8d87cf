// Package ota drives over-the-air firmware updates.
//
// An update is requested by an application command carrying the server,
// port and path of a firmware image. The Orchestrator validates the request,
// announces the upgrade, hands the target to a Fetcher and reports the
// outcome on the info topic. HTTPFlasher is the production Fetcher: it
// downloads the image, verifies it, swaps it in for the running executable
// and restarts the device.
//
// A successful update produces no report of its own. The operator sees the
// device drop off and come back running the new image.
package ota
