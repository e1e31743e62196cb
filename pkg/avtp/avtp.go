// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

// Package avtp IEEE 1722 AVTP 包头的二进制布局、常量模板以及字段读写
//
// 所有多字节字段在线上均为大端。Packet 是一个完整的以太网帧（含802.1Q tag），
// AVTP字段的偏移都是相对于 AvtpOffset 的。
package avtp

// ----- ethernet ------------------------------------------------------------------------------------------------------

const (
	EtherTypeAvtp uint16 = 0x22F0
	TpidVlan      uint16 = 0x8100

	// EthHeaderSize dst(6) + src(6) + tpid(2) + tci(2) + ethertype(2)
	EthHeaderSize = 18
	AvtpOffset    = EthHeaderSize

	EthFrameLenMin = 64
	EthFrameLenMax = 1522

	// EthernetOverhead preamble+sfd(8) + fcs(4) + ifg(12)，计算带宽时使用
	EthernetOverhead = 24
)

// ----- subtype -------------------------------------------------------------------------------------------------------

const (
	Subtype61883 uint8 = 0x00
	SubtypeMma   uint8 = 0x01
	SubtypeAaf   uint8 = 0x02
	SubtypeCvf   uint8 = 0x03
	SubtypeCrf   uint8 = 0x04
)

const DefaultVersion uint8 = 0

// ----- header size (相对AvtpOffset) -----------------------------------------------------------------------------------

const (
	StreamHeaderSize     = 24
	CipHeaderSize        = 8
	Iec61883HeaderSize   = StreamHeaderSize + CipHeaderSize
	AafHeaderSize        = StreamHeaderSize
	CvfH264HeaderSize    = StreamHeaderSize + 4 // h264_timestamp
	CvfH264D13HeaderSize = StreamHeaderSize
	CvfMjpegHeaderSize   = StreamHeaderSize + 8 // rfc2435 jpeg header
	CrfHeaderSize        = 20
)

// ----- 61883 --------------------------------------------------------------------------------------------------------

const (
	Iec61883TagCip  uint8 = 0x1
	Iec61883Channel uint8 = 31
	Iec61883Tcode   uint8 = 0xA

	CipSid        uint8  = 63
	CipQi1        uint8  = 0x0
	CipQi2        uint8  = 0x2
	CipFmt61883_6 uint8  = 0x10
	CipFmt61883_4 uint8  = 0x20
	CipSytNoInfo  uint16 = 0xFFFF

	Iec61883_4Dbs uint8 = 6 // 6 quadlets
	Iec61883_4Fn  uint8 = 3 // 8 data blocks
)

const (
	Iec61883_4SphSize    = 4
	Iec61883_4DataBlocks = 8
)

// ----- aaf ----------------------------------------------------------------------------------------------------------

const (
	AafFormatUser       uint8 = 0x00
	AafFormatFloat32Bit uint8 = 0x01
	AafFormatInt32Bit   uint8 = 0x02
	AafFormatInt24Bit   uint8 = 0x03
	AafFormatInt16Bit   uint8 = 0x04
	AafFormatAes3_32Bit uint8 = 0x05
)

// ----- cvf ----------------------------------------------------------------------------------------------------------

const (
	CvfFormatRfc uint8 = 0x02

	CvfFormatSubtypeMjpeg    uint8 = 0x00
	CvfFormatSubtypeH264     uint8 = 0x01
	CvfFormatSubtypeJpeg2000 uint8 = 0x02
)

// ----- crf ----------------------------------------------------------------------------------------------------------

const (
	CrfTypeUser         uint8 = 0x00
	CrfTypeAudioSample  uint8 = 0x01
	CrfTypeVideoFrame   uint8 = 0x02
	CrfTypeVideoLine    uint8 = 0x03
	CrfTypeMachineCycle uint8 = 0x04
)

const CrfDataMax = 6

// ---------------------------------------------------------------------------------------------------------------------

type TemplateType int

const (
	TemplateIec61883_4 TemplateType = iota
	TemplateIec61883_6
	TemplateAaf
	TemplateCvfH264
	TemplateCvfH264D13
	TemplateCvfMjpeg
	TemplateCrf
)

// HeaderSize 模板中AVTP头部的长度，不含以太网头
func HeaderSize(t TemplateType) int {
	switch t {
	case TemplateIec61883_4, TemplateIec61883_6:
		return Iec61883HeaderSize
	case TemplateAaf:
		return AafHeaderSize
	case TemplateCvfH264:
		return CvfH264HeaderSize
	case TemplateCvfH264D13:
		return CvfH264D13HeaderSize
	case TemplateCvfMjpeg:
		return CvfMjpegHeaderSize
	case TemplateCrf:
		return CrfHeaderSize
	}
	return 0
}

// CopyTemplate 返回一份新申请的以太网+AVTP头模板，常量字段已经填好，可变字段为0
func CopyTemplate(t TemplateType) []byte {
	size := HeaderSize(t)
	if size == 0 {
		return nil
	}
	b := make([]byte, AvtpOffset+size)
	p := Packet(b)
	p.SetTpid(TpidVlan)
	p.SetEtherType(EtherTypeAvtp)

	switch t {
	case TemplateIec61883_4, TemplateIec61883_6:
		p.SetSubtype(Subtype61883)
		p.SetSv(true)
		p.SetVersion(DefaultVersion)
		p.SetTag(Iec61883TagCip)
		p.SetChannel(Iec61883Channel)
		p.SetTcode(Iec61883Tcode)
		p.SetCipQi1(CipQi1)
		p.SetCipSid(CipSid)
		p.SetCipQi2(CipQi2)
		if t == TemplateIec61883_4 {
			p.SetCipDbs(Iec61883_4Dbs)
			p.SetCipFn(Iec61883_4Fn)
			p.SetCipSph(true)
			p.SetCipFmt(CipFmt61883_4)
		} else {
			p.SetCipFmt(CipFmt61883_6)
			p.SetCipSyt(CipSytNoInfo)
		}
	case TemplateAaf:
		p.SetSubtype(SubtypeAaf)
		p.SetSv(true)
		p.SetVersion(DefaultVersion)
	case TemplateCvfH264, TemplateCvfH264D13, TemplateCvfMjpeg:
		p.SetSubtype(SubtypeCvf)
		p.SetSv(true)
		p.SetVersion(DefaultVersion)
		p.SetCvfFormat(CvfFormatRfc)
		if t == TemplateCvfMjpeg {
			p.SetCvfFormatSubtype(CvfFormatSubtypeMjpeg)
		} else {
			p.SetCvfFormatSubtype(CvfFormatSubtypeH264)
		}
	case TemplateCrf:
		p.SetSubtype(SubtypeCrf)
		p.SetSv(true)
		p.SetVersion(DefaultVersion)
		p.SetCrfType(CrfTypeAudioSample)
	}
	return b
}
