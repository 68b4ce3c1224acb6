package kv

type saveCellJob struct {
	key   string
	edges []KVEdge
}

type encodedCell struct {
	key   string
	value []byte
	err   error
}

func encodeCellJob(job saveCellJob) encodedCell {
	val, err := encodeEdges(job.edges)
	return encodedCell{key: job.key, value: val, err: err}
}
