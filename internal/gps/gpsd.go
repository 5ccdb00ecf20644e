package gps

const gpsdDefaultAddr = "127.0.0.1:2947"

// GPSDWatch asks gpsd to relay raw NMEA from the receiver. It has to be
// sent again on every new connection. The stream also carries gpsd's own
// JSON status lines; the sentence framer skips them since they never start
// with '$'.
const GPSDWatch = "?WATCH={\"enable\":true,\"nmea\":true}\n"
