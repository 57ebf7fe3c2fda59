package horizon

// Clone deep-copies the calendar. The engine mutates a clone and swaps
// it in only after persistence succeeds, so a failed save can never
// leave observable half-applied state.
func (c *Calendar) Clone() *Calendar {
	if c == nil {
		return nil
	}
	out := &Calendar{
		Template: c.Template.Clone(),
		Blocks:   c.Blocks.clone(),
	}
	if c.Horizon != nil {
		out.Horizon = &MaterializedSchedule{
			HorizonStart: c.Horizon.HorizonStart,
			HorizonEnd:   c.Horizon.HorizonEnd,
			PerDate:      make(map[Date]*DaySlots, len(c.Horizon.PerDate)),
		}
		for d, day := range c.Horizon.PerDate {
			cp := &DaySlots{Date: day.Date, State: day.State}
			if day.Slots != nil {
				cp.Slots = make([]EffectiveSlot, len(day.Slots))
				copy(cp.Slots, day.Slots)
			}
			out.Horizon.PerDate[d] = cp
		}
	}
	return out
}

func (bs BlockSet) clone() BlockSet {
	out := make(BlockSet, len(bs))
	for d, list := range bs {
		cp := make([]BlockedInterval, len(list))
		copy(cp, list)
		out[d] = cp
	}
	return out
}
