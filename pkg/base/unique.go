// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/unique"

const (
	UkPreAaf        = "AAF"
	UkPreIec61883_6 = "IEC618836"
	UkPreIec61883_4 = "IEC618834"
	UkPreCvfH264    = "CVFH264"
	UkPreCrf        = "CRF"
	UkPreRegistry   = "MSE"
)

func GenUkAaf() string {
	return siUkAaf.GenUniqueKey()
}

func GenUkIec61883_6() string {
	return siUkIec61883_6.GenUniqueKey()
}

func GenUkIec61883_4() string {
	return siUkIec61883_4.GenUniqueKey()
}

func GenUkCvfH264() string {
	return siUkCvfH264.GenUniqueKey()
}

func GenUkCrf() string {
	return siUkCrf.GenUniqueKey()
}

func GenUkRegistry() string {
	return siUkRegistry.GenUniqueKey()
}

var (
	siUkAaf        *unique.SingleGenerator
	siUkIec61883_6 *unique.SingleGenerator
	siUkIec61883_4 *unique.SingleGenerator
	siUkCvfH264    *unique.SingleGenerator
	siUkCrf        *unique.SingleGenerator
	siUkRegistry   *unique.SingleGenerator
)

func init() {
	siUkAaf = unique.NewSingleGenerator(UkPreAaf)
	siUkIec61883_6 = unique.NewSingleGenerator(UkPreIec61883_6)
	siUkIec61883_4 = unique.NewSingleGenerator(UkPreIec61883_4)
	siUkCvfH264 = unique.NewSingleGenerator(UkPreCvfH264)
	siUkCrf = unique.NewSingleGenerator(UkPreCrf)
	siUkRegistry = unique.NewSingleGenerator(UkPreRegistry)
}
