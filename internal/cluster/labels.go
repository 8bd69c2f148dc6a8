package cluster

import "sort"

// InvertLabels turns item → labels into label → items. Items are listed in
// key order.
func InvertLabels(itemLabels map[string][]string) map[string][]string {
	keys := make([]string, 0, len(itemLabels))
	for k := range itemLabels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string][]string)
	for _, k := range keys {
		for _, label := range itemLabels[k] {
			out[label] = appendUnique(out[label], k)
		}
	}
	return out
}

// MapLabels assigns every label to the cluster containing all of its items
// and returns cluster → sorted labels. Labels whose items share no cluster
// map to "".
func MapLabels(labelItems map[string][]string, tree *Tree) map[string][]string {
	out := make(map[string][]string)
	for label, items := range labelItems {
		if items == nil {
			items = []string{}
		}
		path, _ := CommonPath(tree, items)
		c := ContainingCluster(path)
		out[c] = append(out[c], label)
	}
	for _, labels := range out {
		sort.Strings(labels)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
