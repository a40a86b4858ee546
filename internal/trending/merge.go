package trending

// Merge folds the current snapshot into the running daily aggregate,
// keyed by title. Metrics only ever grow (the max of both sides wins),
// posts are replaced wholesale by the fresher sample, and topics no longer
// trending are carried forward unchanged. The result is re-sorted by
// descending hot, so merging is idempotent and monotonic across repeated
// runs.
func Merge(current, previous []*Item) []*Item {
	prevByTitle := make(map[string]*Item, len(previous))
	for _, it := range previous {
		if _, ok := prevByTitle[it.Title]; !ok {
			prevByTitle[it.Title] = it
		}
	}

	merged := make([]*Item, 0, len(current)+len(previous))
	seen := make(map[string]struct{}, len(current))

	for _, cur := range current {
		if _, dup := seen[cur.Title]; dup {
			continue
		}
		seen[cur.Title] = struct{}{}

		prev, ok := prevByTitle[cur.Title]
		if !ok {
			merged = append(merged, cloneItem(cur))
			continue
		}

		out := cloneItem(prev)
		out.Hot = maxInt64(prev.Hot, cur.Hot)
		out.ReadCount = maxCount(prev.ReadCount, cur.ReadCount)
		out.DiscussCount = maxCount(prev.DiscussCount, cur.DiscussCount)
		out.OriginCount = maxCount(prev.OriginCount, cur.OriginCount)
		out.Posts = clonePosts(cur.Posts)
		if out.Category == "" {
			out.Category = cur.Category
		}
		if out.Description == "" {
			out.Description = cur.Description
		}
		if out.URL == "" {
			out.URL = cur.URL
		}
		merged = append(merged, out)
	}

	for _, prev := range previous {
		if _, ok := seen[prev.Title]; ok {
			continue
		}
		seen[prev.Title] = struct{}{}
		merged = append(merged, cloneItem(prev))
	}

	SortByHot(merged)
	return merged
}

// cloneItem copies an item deeply enough that merging never aliases the
// inputs' slices.
func cloneItem(it *Item) *Item {
	out := *it
	out.ReadCount = cloneCount(it.ReadCount)
	out.DiscussCount = cloneCount(it.DiscussCount)
	out.OriginCount = cloneCount(it.OriginCount)
	out.Posts = clonePosts(it.Posts)
	return &out
}

func clonePosts(posts []Post) []Post {
	if posts == nil {
		return nil
	}
	out := make([]Post, len(posts))
	copy(out, posts)
	for i := range out {
		if out[i].ImageLinks != nil {
			links := make([]string, len(out[i].ImageLinks))
			copy(links, out[i].ImageLinks)
			out[i].ImageLinks = links
		}
	}
	return out
}

func cloneCount(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// maxCount takes the max of two optional counts; a known value always
// beats an unknown one.
func maxCount(a, b *int64) *int64 {
	switch {
	case a == nil:
		return cloneCount(b)
	case b == nil:
		return cloneCount(a)
	default:
		return cloneCount(ptrMax(a, b))
	}
}

func ptrMax(a, b *int64) *int64 {
	if *a >= *b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a >= b {
		return a
	}
	return b
}
