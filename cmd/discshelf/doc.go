// Command discshelf identifies discs by barcode or title and keeps the shared
// collection document up to date.
//
// Commands:
//
//	lookup <barcode|title>   run the lookup cascade and show ranked candidates
//	add <barcode|title>      look up and store the chosen match
//	list                     show the collection (--filter matches title or note)
//	remove                   delete records by id, upc, title, or added time
//	enrich                   fill in details for pending records
//	scan                     read scanner lines from stdin and add matches
//	serve                    run the HTTP API for the browser scanner
//	logs                     print or follow the log file
//	config init|show|validate
//
// Every command accepts --config and --json.
package main
