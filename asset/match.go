package asset

// Match decides whether two asset-type declarations from opposing orders
// describe the same transferable thing and returns the canonical matched
// type. The predicate is pure and symmetric: Match(a, b) and Match(b, a)
// either both succeed with the same type or both fail with the same error.
func Match(left, right AssetType) (AssetType, error) {
	if !left.Class.Known() || !right.Class.Known() {
		return AssetType{}, ErrInvalidAssetClass
	}
	if left.Class != right.Class {
		return AssetType{}, ErrAssetMismatch
	}
	if !left.Equal(right) {
		return AssetType{}, ErrAssetMismatch
	}
	return left, nil
}
