package patch

const supported = true
