package domain

import (
	"encoding/json"
	"fmt"
)

// ColorBucket is one of five ordered severity levels; higher is more severe.
type ColorBucket int

const (
	BucketGreen ColorBucket = iota
	BucketLightGreen
	BucketYellow
	BucketOrange
	BucketRed
)

// BucketModerate is used when there is nothing to rank against.
const BucketModerate = BucketYellow

// AllBuckets lists buckets from least to most severe.
var AllBuckets = []ColorBucket{BucketGreen, BucketLightGreen, BucketYellow, BucketOrange, BucketRed}

var bucketNames = [...]string{"green", "light_green", "yellow", "orange", "red"}

var bucketColors = [...]string{"#00ff00", "#90ee90", "#ffff00", "#ffa500", "#ff0000"}

// Valid reports whether b is one of the five levels.
func (b ColorBucket) Valid() bool {
	return b >= BucketGreen && b <= BucketRed
}

// String returns the bucket name.
func (b ColorBucket) String() string {
	if !b.Valid() {
		return fmt.Sprintf("bucket(%d)", int(b))
	}
	return bucketNames[b]
}

// Color returns the hex display color.
func (b ColorBucket) Color() string {
	if !b.Valid() {
		return ""
	}
	return bucketColors[b]
}

// ParseBucket converts a bucket name back to its level.
func ParseBucket(name string) (ColorBucket, error) {
	for i, n := range bucketNames {
		if n == name {
			return ColorBucket(i), nil
		}
	}
	return 0, fmt.Errorf("unknown bucket %q", name)
}

func (b ColorBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *ColorBucket) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseBucket(name)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
