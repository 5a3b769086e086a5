// Package paths provides standardized filesystem paths.
//
// # Directory Structure
//
//	<data>/
//	  └── db/            (badger document store)
//	<uploads>/
//	  └── screenshots/   (captured and uploaded screenshots)
//
// Screenshots are served at /uploads/screenshots/<name>.
//
// # Usage
//
//	layout := paths.Layout{DataDir: "./data", UploadsDir: "./uploads"}
//	dir := layout.ScreenshotDir()        // uploads/screenshots
//	url := paths.ScreenshotURL("a.jpg")  // /uploads/screenshots/a.jpg
package paths
