package wlclipboard

import "testing"

func TestHandleDeviceMsgFinishedStopsTheLoop(t *testing.T) {
	var st deviceState
	events := make(chan CaptureEvent, 1)

	ok := handleDeviceMsg(nil, &st, wireMsg{objectID: idDCDevice, opcode: 2, fd: -1}, events)
	if ok {
		t.Fatal("a finished event must signal the capture loop to stop")
	}
}

func TestHandleDeviceMsgDataOfferContinuesTheLoop(t *testing.T) {
	var st deviceState
	events := make(chan CaptureEvent, 1)

	ok := handleDeviceMsg(nil, &st, wireMsg{objectID: idDCDevice, opcode: 0, payload: encodeUint32(7), fd: -1}, events)
	if !ok {
		t.Fatal("a data_offer event must not stop the capture loop")
	}
	if st.offerID != 7 {
		t.Fatalf("offerID = %d, want 7", st.offerID)
	}
}
