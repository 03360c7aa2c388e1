// Package stata decodes Stata .dta files.
//
// Four on-disk layouts are supported: the fixed-binary releases 113 and 114
// and the tagged releases 117 and 118. Only little-endian files are accepted.
//
// Decoding happens in three steps over a single in-memory buffer:
//
//  1. ParseMetadata reads the header and variable dictionary and returns a
//     FileMap of zero-copy views onto the data, strl and value-label blocks.
//  2. ParseStrls builds the sorted long-string table from the strl block.
//  3. DecodeRows turns any row range into typed columnar leaves.
//
// Numeric cells use Stata's in-band missing values: the top of each integer
// range and a band of the float NaN space encode "." and the extended
// missing values .a through .z. Missing cells decode to nulls.
//
// Everything returned by ParseMetadata and ParseStrls is immutable, so
// DecodeRows may run concurrently over the same file.
package stata
