package game

// InputEncoder encodes the state to the network input layout: the
// (features, height, width) planes seen from the side to move, flattened.
func InputEncoder(s *State) []float32 {
	return s.Features(false)
}

// AugmentedEncoder is InputEncoder on the column mirrored board.
func AugmentedEncoder(s *State) []float32 {
	return s.Features(true)
}
