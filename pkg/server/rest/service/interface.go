package service

import "github.com/lintang-b-s/streetgraph/pkg/kv"

type KVDB interface {
	NearestEdgesFromPointCoord(lat, lon float64, limit int) ([]kv.NearestEdge, error)
}
