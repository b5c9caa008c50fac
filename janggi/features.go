package janggi

import "gorgonia.org/tensor"

const (
	// NumPlanes is the depth of the feature tensor: own and opposing planes
	// for each kind, the side to move, and the round number.
	NumPlanes = 2*NumKinds + 2

	colorPlane = 2 * NumKinds
	roundPlane = colorPlane + 1
)

// Features encodes the position for a predictor as a (NumPlanes, Height,
// Width) tensor seen from color, the side to move. The board is read through
// Symmetries(color); augmented additionally mirrors the columns. Policies
// built with the same symmetries line up with these planes.
func (b *Board) Features(color Color, round int, augmented bool) *tensor.Dense {
	symX, symY := Symmetries(color)
	if augmented {
		symY = !symY
	}
	plane := Height * Width
	data := make([]float32, NumPlanes*plane)
	for r := 0; r < Height; r++ {
		for c := 0; c < Width; c++ {
			sr, sc := r, c
			if symX {
				sr = Height - 1 - r
			}
			if symY {
				sc = Width - 1 - c
			}
			i := b.grid[sr][sc]
			if i == empty {
				continue
			}
			p := &b.pieces[i]
			k := p.Kind.Index()
			if p.Color != color {
				k += NumKinds
			}
			data[k*plane+r*Width+c] = 1
		}
	}
	for i := 0; i < plane; i++ {
		if color == Red {
			data[colorPlane*plane+i] = 1
		}
		data[roundPlane*plane+i] = float32(round)
	}
	return tensor.New(tensor.WithShape(NumPlanes, Height, Width), tensor.WithBacking(data))
}
