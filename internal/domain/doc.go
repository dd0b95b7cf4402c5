// Package domain classifies calendar events geographically by turning the
// geocoded address of their venue into a six-level node chain and rendering
// that chain back into display strings.
//
// # Data Source
//
// Venue addresses are free text entered by event editors. They are resolved
// by a Nominatim-compatible geocoder (search endpoint with addressdetails=1),
// which returns a flat address object whose keys depend on the country and on
// OpenStreetMap tagging, for example:
//
//	{"house_number":"1","road":"Marienplatz","suburb":"Altstadt-Lehel",
//	 "city":"München","state":"Bayern","country":"Deutschland","country_code":"de"}
//
// # Levels
//
//	1 continent       derived from country_code via a static table ("Unknown" if unmapped)
//	2 country         "country"; its slug is the country code so it is stable across languages
//	3 state           first of state, region, province
//	4 city            first of city, town, village, county
//	5 street          first of road, street, pedestrian
//	6 street number   "house_number"
//
// Missing components are normal and leave the level empty; only a result
// with no components at all is a normalization failure ([ErrNoAddress]).
//
// City-states:
//
//	In countries listed as collapsed regions (default de, at, ch, be) a city
//	may itself be the first-level subdivision. Nominatim then omits "state".
//	The city is promoted to the state level and the finest district
//	(city_district, suburb, borough) becomes the city level:
//
//	  {"city":"Berlin","suburb":"Prenzlauer Berg","country_code":"de"}
//	  → state "Berlin", city "Prenzlauer Berg"
//
// # Synchronization
//
// Nodes are identified by slug. Each active level is looked up by slug,
// created when missing, and moved under the expected parent when its stored
// parent drifted. A [TermArgsHook] may rewrite name, slug and parent per
// level before lookup. Store failures end the chain but keep the prefix.
//
// # Path Resolution
//
// Rendering works from the flat node set associated with an event. Paths are
// rebuilt by following parent links from each leaf. Because the stored chain
// only holds levels that were active at sync time, path index 0 is level
// minLevel and the window [start, end] maps to indexes
//
//	startIndex = max(0, start-minLevel)
//	endIndex   = min(len(path), end-minLevel+1)
package domain
