package provider

import (
	"context"
	"strings"
)

// DelimiterLister supports delimiter-based listing.
//
// This is used for one-level folder views. Delimiter listing returns:
//   - Objects directly under Prefix (no nested delimiter in the remainder)
//   - CommonPrefixes (immediate child prefixes)
//
// Implementations should map to provider-native delimiter listing when available
// (e.g., S3 ListObjectsV2 with Delimiter).
type DelimiterLister interface {
	ListWithDelimiter(ctx context.Context, opts ListWithDelimiterOptions) (*ListWithDelimiterResult, error)
}

// ListWithDelimiterOptions configures a delimiter listing operation.
type ListWithDelimiterOptions struct {
	// Prefix filters results to keys starting with this value.
	Prefix string

	// Delimiter groups keys (e.g., "/").
	Delimiter string

	// ContinuationToken resumes listing from a previous ListWithDelimiterResult.
	ContinuationToken string

	// MaxKeys limits the number of keys returned per page.
	MaxKeys int
}

// ListWithDelimiterResult contains a page of results from a delimiter listing.
type ListWithDelimiterResult struct {
	// Objects are object summaries directly under the requested Prefix.
	Objects []ObjectSummary

	// CommonPrefixes are the immediate child prefixes.
	CommonPrefixes []string

	// ContinuationToken is used to retrieve the next page.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// SplitByDelimiter groups keys under prefix into direct objects and common
// prefixes, the way S3 does for a delimiter listing.
//
// Providers without native delimiter support use this to derive one page from
// a flat listing.
func SplitByDelimiter(objects []ObjectSummary, prefix, delimiter string) ([]ObjectSummary, []string) {
	direct := make([]ObjectSummary, 0, len(objects))
	seen := map[string]struct{}{}
	var prefixes []string

	for _, obj := range objects {
		rest, ok := strings.CutPrefix(obj.Key, prefix)
		if !ok {
			continue
		}
		idx := -1
		if delimiter != "" {
			idx = strings.Index(rest, delimiter)
		}
		if idx < 0 {
			direct = append(direct, obj)
			continue
		}
		cp := prefix + rest[:idx+len(delimiter)]
		if _, ok := seen[cp]; ok {
			continue
		}
		seen[cp] = struct{}{}
		prefixes = append(prefixes, cp)
	}
	return direct, prefixes
}
