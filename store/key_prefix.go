package store

// Declare database key prefix for objects
const (
	PrefixBlockMeta      = "blk_meta:"
	PrefixBlock          = "blk:"
	BlockMetaKeyCount    = "count"
	heightKeyLen         = len(PrefixBlock) + 8
	defaultStoreTimeoutS = 5
)
