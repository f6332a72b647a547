// Package panel serves the browser dashboard.
//
// A minimal dashboard is embedded in the binary so a fresh controller
// has a working page. When api.static_dir points at an existing
// directory, assets are served from there instead. Both modes fall back
// to index.html for unknown paths so client-side routing works.
package panel
