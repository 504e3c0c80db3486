// Package domain models the canonical per-country daily epidemiological series.
//
// # Data Sources
//
// Daily case and death counts are published independently by several public
// health agencies. Each agency exports one flat table with one row per
// country per reporting date, but column names, date formats and country
// codes all differ:
//
//	ECDC  dateRep (dd/mm/yyyy), geoId (alpha-2, with quirks), cases, deaths
//	OWID  date (yyyy-mm-dd), iso_code (alpha-3), new_cases, new_deaths
//	WHO   Date_reported (yyyy-mm-dd), Country_code (alpha-2), New_cases, New_deaths
//
// The source adapters in package source turn each of these into [Record]
// values keyed by a canonical two-letter GeoID.
//
// # Country Code Conventions
//
// The canonical join key is the ISO 3166 alpha-2 code. Known disagreements:
//
//	ECDC "UK" is canonical "GB"; ECDC "EL" is canonical "GR".
//	Namibia's "NA" is read as a missing value by many CSV toolchains, so an
//	empty code is attributed to Namibia.
//	OWID publishes alpha-3 codes and "OWID_KOS" for Kosovo (canonical "XK");
//	its "OWID_*" aggregates (world, continents, income groups) have no
//	canonical entry and are dropped.
//
// Display names are always replaced by the registry's canonical name so that
// every source agrees on naming for a shared GeoID.
//
// # Counts
//
// Daily counts are signed. Agencies revise history by publishing negative
// corrections, so a negative DailyCases is data, not an error.
//
// # Derived Columns
//
// Derived columns are stored as [Value] slices aligned with the records of a
// [Series]. A Value with Valid == false is an explicit missing value; it is
// never replaced by zero. See package indicator.
//
// # Merging
//
// A [Store] holds at most one record per (GeoID, date). When several sources
// report the same country and date, the record from the source declared
// later wins; see package combine.
package domain
