package pjg

// calcZdstLists counts, for each block of each component, the nonzero AC
// coefficients separately for the 7x7 region, the first row and the first
// column.
func (c *Codec) calcZdstLists() {
	for cmp := 0; cmp < c.cmpc; cmp++ {
		ci := &c.cmpnfo[cmp]

		for dpos := range ci.ZdstData {
			ci.ZdstData[dpos] = 0
			ci.ZdstXLow[dpos] = 0
			ci.ZdstYLow[dpos] = 0
		}

		for bpos := 1; bpos < 64; bpos++ {
			bX := int(ZigzagToRaster[bpos]) % 8
			bY := int(ZigzagToRaster[bpos]) / 8
			switch {
			case bX == 0:
				for dpos := 0; dpos < ci.Bc; dpos++ {
					if ci.CollData[bpos][dpos] != 0 {
						ci.ZdstYLow[dpos]++
					}
				}
			case bY == 0:
				for dpos := 0; dpos < ci.Bc; dpos++ {
					if ci.CollData[bpos][dpos] != 0 {
						ci.ZdstXLow[dpos]++
					}
				}
			default:
				for dpos := 0; dpos < ci.Bc; dpos++ {
					if ci.CollData[bpos][dpos] != 0 {
						ci.ZdstData[dpos]++
					}
				}
			}
		}
	}
}
