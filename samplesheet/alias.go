package samplesheet

import "strings"

const virtualSampleSuffix = "_virtual_sample"

// BinSampleAlias forms the virtual-sample alias of a bin.
func BinSampleAlias(assemblyName, binID string) string {
	return assemblyName + "_bin_" + binID + virtualSampleSuffix
}

// MAGSampleAlias forms the virtual-sample alias of a MAG.
func MAGSampleAlias(assemblyName, binID string) string {
	return assemblyName + "_MAG_" + binID + virtualSampleSuffix
}

// BinIDFromAlias inverts BinSampleAlias/MAGSampleAlias, recovering the
// bin id from a virtual-sample alias returned in a receipt.
func BinIDFromAlias(alias, assemblyName string, mag bool) (string, bool) {
	infix := "_bin_"
	if mag {
		infix = "_MAG_"
	}
	prefix := assemblyName + infix
	if !strings.HasPrefix(alias, prefix) || !strings.HasSuffix(alias, virtualSampleSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(alias, prefix), virtualSampleSuffix)
	if id == "" {
		return "", false
	}
	return id, true
}
