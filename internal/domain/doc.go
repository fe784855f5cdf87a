// Package domain hydrolinks point observations to the National Hydrography
// Dataset (NHD).
//
// Hydrolinking assigns a point an address on the stream network, the same way
// a street address places a house on a road: a reachcode identifies the NHD
// reach and a measure gives the position along it.
//
// # Data Sources
//
// Flowline and waterbody features come from ArcGIS MapServer query endpoints
// (see the arcgis adapter). Two NHD versions are supported:
//
//	nhdhr      NHD High Resolution, served by USGS Hydro Event Management (HEM)
//	nhdplusv2  NHDPlus Version 2.1 Medium Resolution, served by EPA watersgeo
//
// Flowline geometry is requested with M values. Each vertex carries an NHD
// measure where 0 is the most downstream node of a reach and 100 the most
// upstream. A reachcode can span several flowlines, so a single flowline
// covers only part of that range.
//
// # Coordinate Systems
//
// All work happens in NAD83 geographic coordinates (EPSG:4269). Inputs in
// WGS84 (4326), Web Mercator (3857) or CONUS Albers (5070) are converted first.
// Snapping and measure interpolation are planar in degrees, matching how the
// services compute M along a path. Distances reported in meters are measured
// in CONUS Albers equal-area (EPSG:5070).
//
// # Certainty Measures
//
// A hydrolink is only as good as the evidence behind it, so every record
// carries:
//
//	snap distance         meters from the point to the chosen flowline
//	closest confluence    meters to the nearest node shared by 3+ flowlines
//	name similarity       0..1 score between the source water name and GNIS name
//	flowline counts       candidates in the buffer, and how many match by name
//
// Points close to a confluence or far from any flowline deserve review.
//
// # Selection Methods
//
//	closest     pick the flowline with the smallest snap distance
//	name_match  prefer exact GNIS name matches, then fuzzy matches meeting the
//	            similarity cutoff, then fall back to the closest flowline
//
// Equal snap distances between the best candidates are treated as ambiguous
// and the point is reported as failed rather than guessed.
package domain
