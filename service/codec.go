package service

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"clob/domain/orderbook"
	entrywal "clob/infra/wal/entry"
	"clob/protocol"
)

var ErrBadPayload = errors.New("service: bad journal payload")

// journal payload fields
const (
	fieldSide   protowire.Number = 1
	fieldMarket protowire.Number = 2
	fieldID     protowire.Number = 3
	fieldQty    protowire.Number = 4
	fieldPrice  protowire.Number = 5
)

func recordType(k protocol.Kind) entrywal.RecordType {
	switch k {
	case protocol.Submit:
		return entrywal.RecordSubmit
	case protocol.Cancel:
		return entrywal.RecordCancel
	default:
		return entrywal.RecordEnd
	}
}

// EncodeCommand writes c in protobuf wire format. END has an empty body.
func EncodeCommand(c protocol.Command) []byte {
	var b []byte
	switch c.Kind {
	case protocol.Submit:
		o := c.Order
		b = protowire.AppendTag(b, fieldSide, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(o.Side))
		if o.Kind.IsMarket() {
			b = protowire.AppendTag(b, fieldMarket, protowire.VarintType)
			b = protowire.AppendVarint(b, protowire.EncodeBool(true))
		}
		b = protowire.AppendTag(b, fieldID, protowire.BytesType)
		b = protowire.AppendString(b, string(o.ID))
		b = protowire.AppendTag(b, fieldQty, protowire.VarintType)
		b = protowire.AppendVarint(b, o.Qty)
		if price, ok := o.Kind.Price(); ok {
			b = protowire.AppendTag(b, fieldPrice, protowire.VarintType)
			b = protowire.AppendVarint(b, price)
		}
	case protocol.Cancel:
		b = protowire.AppendTag(b, fieldID, protowire.BytesType)
		b = protowire.AppendString(b, string(c.ID))
	}
	return b
}

// session-start payload field
const fieldSession protowire.Number = 1

// EncodeStart is the payload of a RecordStart.
func EncodeStart(session string) []byte {
	b := protowire.AppendTag(nil, fieldSession, protowire.BytesType)
	return protowire.AppendString(b, session)
}

func DecodeStart(b []byte) (string, error) {
	var session string
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", fmt.Errorf("%w: %v", ErrBadPayload, protowire.ParseError(n))
		}
		b = b[n:]
		if num == fieldSession && typ == protowire.BytesType {
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return "", fmt.Errorf("%w: %v", ErrBadPayload, protowire.ParseError(m))
			}
			session, n = v, m
		} else {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", fmt.Errorf("%w: %v", ErrBadPayload, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return session, nil
}

// DecodeCommand is the inverse of EncodeCommand.
func DecodeCommand(t entrywal.RecordType, b []byte) (protocol.Command, error) {
	var (
		side   orderbook.Side
		market bool
		id     string
		qty    uint64
		price  uint64
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protocol.Command{}, fmt.Errorf("%w: %v", ErrBadPayload, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldID && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return protocol.Command{}, fmt.Errorf("%w: %v", ErrBadPayload, protowire.ParseError(m))
			}
			id, n = v, m
		case typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return protocol.Command{}, fmt.Errorf("%w: %v", ErrBadPayload, protowire.ParseError(m))
			}
			switch num {
			case fieldSide:
				side = orderbook.Side(v)
			case fieldMarket:
				market = protowire.DecodeBool(v)
			case fieldQty:
				qty = v
			case fieldPrice:
				price = v
			}
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protocol.Command{}, fmt.Errorf("%w: %v", ErrBadPayload, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}

	switch t {
	case entrywal.RecordSubmit:
		if side != orderbook.Buy && side != orderbook.Sell {
			return protocol.Command{}, fmt.Errorf("%w: side %d", ErrBadPayload, side)
		}
		oid := orderbook.OrderID(id)
		if market {
			return protocol.Command{Kind: protocol.Submit, Order: orderbook.NewMarket(oid, side, qty)}, nil
		}
		return protocol.Command{Kind: protocol.Submit, Order: orderbook.NewLimit(oid, side, qty, price)}, nil
	case entrywal.RecordCancel:
		return protocol.Command{Kind: protocol.Cancel, ID: orderbook.OrderID(id)}, nil
	case entrywal.RecordEnd:
		return protocol.Command{Kind: protocol.End}, nil
	default:
		return protocol.Command{}, fmt.Errorf("%w: record type %d", ErrBadPayload, t)
	}
}
