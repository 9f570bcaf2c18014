// Package logs prints and follows the discshelf log file for `discshelf logs`.
//
// Memory stays bounded by the number of lines requested. Follow mode polls
// the file until the caller's context ends.
package logs
