// Package marketsdk holds the wire types of the marketplace identity API and
// a small client for its public endpoints. The server writes these types, so
// they double as the API contract.
package marketsdk
